package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/transcribeflow/internal/identity"
	"github.com/desertthunder/transcribeflow/internal/models"
	"github.com/desertthunder/transcribeflow/internal/repositories"
	"github.com/desertthunder/transcribeflow/internal/services"
	"github.com/desertthunder/transcribeflow/internal/shared"
	tu "github.com/desertthunder/transcribeflow/internal/testing"
	"github.com/desertthunder/transcribeflow/internal/trial"
	"github.com/desertthunder/transcribeflow/internal/upload"
	"github.com/urfave/cli/v3"
)

type testEnv struct {
	runner *Runner
	svc    *tu.MockService
	db     *sql.DB
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newTestEnv(t *testing.T, provider identity.Provider) *testEnv {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if provider == nil {
		provider = &identity.Static{}
	}

	env := &testEnv{
		svc:    &tu.MockService{},
		db:     db,
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
	}
	env.runner = NewRunner(RunnerOpts{
		API:       env.svc,
		Identity:  provider,
		DB:        db,
		Logger:    shared.NewLogger(&bytes.Buffer{}),
		Input:     strings.NewReader(""),
		Output:    env.out,
		ErrOutput: env.errOut,
	})
	return env
}

func (e *testEnv) run(args ...string) error {
	app := &cli.Command{Name: "tflow", Commands: e.runner.register()}
	return app.Run(context.Background(), append([]string{"tflow"}, args...))
}

func sampleResult() *models.UploadResult {
	confidence := 91.2
	return &models.UploadResult{
		Transcript:      "welcome to the quarterly review",
		Summary:         "A review meeting.",
		Keywords:        []string{"review"},
		BulletPoints:    []string{"Quarter closed"},
		WordCount:       5,
		ConfidenceScore: &confidence,
		SonicDNA:        models.SonicDNA{Energy: 50, Pace: 50, Clarity: 80, Duration: 42},
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			api := &tu.MockService{}
			provider := &identity.Static{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				API:        api,
				Identity:   provider,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
			if runner.identity != provider {
				t.Error("expected identity to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.errOutput != os.Stderr {
				t.Error("expected errOutput to default to os.Stderr")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.configName() != "/test/path/config.toml" {
				t.Errorf("unexpected config name %s", runner.configName())
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"upload", "history", "auth", "trial", "setup", "tui"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("confirm", func(t *testing.T) {
		tests := []struct {
			input string
			want  bool
		}{
			{"y\n", true},
			{"YES\n", true},
			{"n\n", false},
			{"\n", false},
			{"", false},
		}
		for _, tt := range tests {
			runner := NewRunner(RunnerOpts{Input: strings.NewReader(tt.input), ErrOutput: &bytes.Buffer{}})
			if got := runner.confirm("Sure?"); got != tt.want {
				t.Errorf("confirm(%q) = %t, want %t", tt.input, got, tt.want)
			}
		}
	})

	t.Run("service not initialized", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if _, err := runner.service(); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("SetLogger moves backend client logs", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `[{"id":"not-a-number"}]`)
		}))
		defer server.Close()

		var terminal, file bytes.Buffer
		api := services.NewAPIService(server.URL, nil).WithLogger(shared.NewLogger(&terminal))
		runner := NewRunner(RunnerOpts{API: api, Logger: shared.NewLogger(&terminal)})

		runner.SetLogger(shared.NewLogger(&file))
		if _, err := api.History(context.Background()); err != nil {
			t.Fatalf("History() error = %v", err)
		}

		if terminal.Len() != 0 {
			t.Errorf("expected nothing on the terminal logger, got %q", terminal.String())
		}
		if !strings.Contains(file.String(), "skipping malformed history entry") {
			t.Errorf("expected backend warning in the file logger, got %q", file.String())
		}
	})

	t.Run("provider defaults to trial-only identity", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		p, err := runner.provider()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if p.CurrentUser() != nil {
			t.Error("unconfigured identity should have no user")
		}
	})
}

func TestParseID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr error
	}{
		{"42", 42, nil},
		{"", 0, shared.ErrMissingArgument},
		{"abc", 0, shared.ErrInvalidArgument},
		{"-3", 0, shared.ErrInvalidArgument},
	}
	for _, tt := range tests {
		got, err := parseID(tt.raw)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("parseID(%q) error = %v, want %v", tt.raw, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("parseID(%q) = %d, %v", tt.raw, got, err)
		}
	}
}

func TestUploadCommand(t *testing.T) {
	t.Run("fresh visitor upload prints the result and spends a trial", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.UploadResult = sampleResult()
		file := tu.WriteAudioFixture(t, "review.mp3")

		if err := env.run("upload", "--lang", "es", file); err != nil {
			t.Fatalf("upload failed: %v", err)
		}

		if !strings.Contains(env.out.String(), "welcome to the quarterly review") {
			t.Errorf("expected transcript in output, got %s", env.out.String())
		}
		if len(env.svc.Uploads) != 1 {
			t.Fatalf("expected 1 upload, got %d", len(env.svc.Uploads))
		}
		req := env.svc.Uploads[0]
		if req.Mode != models.ModeTrial || req.TargetLanguage != "es" || req.AuthToken != "" {
			t.Errorf("unexpected request: %+v", req)
		}

		raw, err := repositories.NewMetadataRepository(env.db).Get(context.Background(), trial.StorageKey)
		if err != nil || string(raw) != "1" {
			t.Errorf("expected stored trial count 1, got %q (%v)", raw, err)
		}
	})

	t.Run("json output", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.UploadResult = sampleResult()
		file := tu.WriteAudioFixture(t, "review.mp3")

		if err := env.run("upload", "--json", file); err != nil {
			t.Fatalf("upload failed: %v", err)
		}

		var doc map[string]any
		if err := json.Unmarshal(env.out.Bytes(), &doc); err != nil {
			t.Fatalf("expected JSON output: %v\n%s", err, env.out.String())
		}
		if doc["filename"] != "review.mp3" {
			t.Errorf("unexpected filename %v", doc["filename"])
		}
	})

	t.Run("exhausted trial is blocked before the network", func(t *testing.T) {
		env := newTestEnv(t, nil)
		if err := repositories.NewMetadataRepository(env.db).Set(context.Background(), trial.StorageKey, []byte("2")); err != nil {
			t.Fatal(err)
		}
		file := tu.WriteAudioFixture(t, "review.mp3")

		err := env.run("upload", file)
		if !errors.Is(err, upload.ErrTrialLimitReached) {
			t.Fatalf("expected ErrTrialLimitReached, got %v", err)
		}
		if env.svc.UploadCount() != 0 {
			t.Error("blocked upload should not reach the backend")
		}
		if !strings.Contains(env.errOut.String(), upload.TrialLimitMessage) {
			t.Errorf("expected trial warning, got %s", env.errOut.String())
		}
	})

	t.Run("signed-in upload sends the token", func(t *testing.T) {
		env := newTestEnv(t, &identity.Static{User: &models.User{ID: "u1"}, Token: "tok"})
		env.svc.UploadResult = sampleResult()
		file := tu.WriteAudioFixture(t, "review.mp3")

		if err := env.run("upload", file); err != nil {
			t.Fatalf("upload failed: %v", err)
		}

		req := env.svc.Uploads[0]
		if req.Mode != models.ModeAuthenticated || req.AuthToken != "tok" {
			t.Errorf("unexpected request: %+v", req)
		}
		raw, _ := repositories.NewMetadataRepository(env.db).Get(context.Background(), trial.StorageKey)
		if raw != nil {
			t.Errorf("signed-in upload should not touch the trial count, got %q", raw)
		}
	})

	t.Run("fixed token", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.runner.identity = nil
		env.runner.useToken("flag-token")
		env.svc.UploadResult = sampleResult()
		file := tu.WriteAudioFixture(t, "review.mp3")

		if err := env.run("upload", file); err != nil {
			t.Fatalf("upload failed: %v", err)
		}
		req := env.svc.Uploads[0]
		if req.Mode != models.ModeAuthenticated || req.AuthToken != "flag-token" {
			t.Errorf("unexpected request: %+v", req)
		}
	})

	t.Run("backend failure is reported and journaled", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.UploadErr = errors.New("connection refused")
		file := tu.WriteAudioFixture(t, "review.mp3")

		err := env.run("upload", file)
		if !errors.Is(err, upload.ErrUploadFailed) {
			t.Fatalf("expected ErrUploadFailed, got %v", err)
		}
		if !strings.Contains(env.errOut.String(), "Upload/Processing failed: connection refused") {
			t.Errorf("expected failure toast, got %s", env.errOut.String())
		}

		env.out.Reset()
		if err := env.run("history", "list", "--local"); err != nil {
			t.Fatalf("history list --local failed: %v", err)
		}
		if !strings.Contains(env.out.String(), "failed") || !strings.Contains(env.out.String(), "review.mp3") {
			t.Errorf("expected failed journal entry, got %s", env.out.String())
		}
	})

	t.Run("missing file", func(t *testing.T) {
		env := newTestEnv(t, nil)
		if err := env.run("upload", filepath.Join(t.TempDir(), "nope.mp3")); err == nil {
			t.Fatal("expected error for missing file")
		}
		if env.svc.UploadCount() != 0 {
			t.Error("missing file should not be uploaded")
		}
	})

	t.Run("missing argument", func(t *testing.T) {
		env := newTestEnv(t, nil)
		if err := env.run("upload"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestHistoryCommands(t *testing.T) {
	items := func() []models.HistoryItem {
		return []models.HistoryItem{
			{ID: 1, Filename: "one.mp3", Timestamp: "2025-01-01 09:00:00", Transcript: "first transcript", WordCount: 2},
			{ID: 2, Filename: "two.wav", Timestamp: "2025-01-02 09:00:00", Transcript: "second transcript", WordCount: 2},
		}
	}

	t.Run("list", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.Items = items()

		if err := env.run("history", "list"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(env.out.String(), "one.mp3") || !strings.Contains(env.out.String(), "two.wav") {
			t.Errorf("unexpected output: %s", env.out.String())
		}
	})

	t.Run("list json with limit", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.Items = items()

		if err := env.run("history", "list", "--json", "--limit", "1"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		var got []models.HistoryItem
		if err := json.Unmarshal(env.out.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected 1 item, got %d", len(got))
		}
	})

	t.Run("show markdown", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.Items = items()

		if err := env.run("history", "show", "--format", "markdown", "2"); err != nil {
			t.Fatalf("show failed: %v", err)
		}
		if !strings.Contains(env.out.String(), "# two.wav") {
			t.Errorf("unexpected output: %s", env.out.String())
		}
	})

	t.Run("delete", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.Items = items()

		if err := env.run("history", "delete", "1"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if len(env.svc.Deleted) != 1 || env.svc.Deleted[0] != 1 {
			t.Errorf("expected item 1 deleted, got %v", env.svc.Deleted)
		}
	})

	t.Run("delete-all requires confirmation", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.Items = items()

		if err := env.run("history", "delete-all"); err != nil {
			t.Fatalf("delete-all failed: %v", err)
		}
		if env.svc.DeletedAll != 0 || !strings.Contains(env.out.String(), "Cancelled") {
			t.Errorf("unconfirmed delete-all should be cancelled")
		}

		if err := env.run("history", "delete-all", "--yes"); err != nil {
			t.Fatalf("delete-all failed: %v", err)
		}
		if env.svc.DeletedAll != 1 {
			t.Errorf("expected delete-all to be called once, got %d", env.svc.DeletedAll)
		}
	})

	t.Run("export to file", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.Items = items()
		path := filepath.Join(t.TempDir(), "one.csv")

		if err := env.run("history", "export", "--format", "csv", "-o", path, "1"); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "first transcript") {
			t.Errorf("unexpected export: %s", content)
		}
	})

	t.Run("export archive", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.Items = items()
		dir := t.TempDir()

		if err := env.run("history", "export", "--all", "--dir", dir); err != nil {
			t.Fatalf("archive failed: %v", err)
		}
		tu.AssertDirExists(t, dir)
		tu.AssertFileExists(t, filepath.Join(dir, "archive_manifest.json"))
		tu.AssertFileExists(t, filepath.Join(dir, "1_one.txt"))
		tu.AssertFileExists(t, filepath.Join(dir, "2_two.txt"))
		if !strings.Contains(env.out.String(), "Exported:   2/2") {
			t.Errorf("unexpected summary: %s", env.out.String())
		}
	})

	t.Run("download", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.Items = items()
		env.svc.Audio = []byte("RIFF")
		path := filepath.Join(t.TempDir(), "out.wav")

		if err := env.run("history", "download", "-o", path, "2"); err != nil {
			t.Fatalf("download failed: %v", err)
		}
		if got := tu.MustReadFile(t, path); got != "RIFF" {
			t.Errorf("unexpected audio %q", got)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		env := newTestEnv(t, nil)
		if err := env.run("history", "show", "abc"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestTrialAndAuthCommands(t *testing.T) {
	t.Run("trial status", func(t *testing.T) {
		env := newTestEnv(t, nil)
		if err := repositories.NewMetadataRepository(env.db).Set(context.Background(), trial.StorageKey, []byte("1")); err != nil {
			t.Fatal(err)
		}

		if err := env.run("trial", "status", "--json"); err != nil {
			t.Fatalf("trial status failed: %v", err)
		}

		var status trialStatus
		if err := json.Unmarshal(env.out.Bytes(), &status); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if status.Used != 1 || status.Remaining != 1 || !status.CanUpload || status.Limit != trial.MaxTrialUploads {
			t.Errorf("unexpected status: %+v", status)
		}
	})

	t.Run("auth status signed in", func(t *testing.T) {
		env := newTestEnv(t, &identity.Static{User: &models.User{ID: "u1", Email: "ada@example.com"}})

		if err := env.run("auth", "status"); err != nil {
			t.Fatalf("auth status failed: %v", err)
		}
		if !strings.Contains(env.out.String(), "ada@example.com") || !strings.Contains(env.out.String(), "Backend:        ✓") {
			t.Errorf("unexpected output: %s", env.out.String())
		}
	})

	t.Run("auth status with unreachable backend", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.svc.HealthErr = shared.ErrServiceUnavailable

		if err := env.run("auth", "status"); err != nil {
			t.Fatalf("auth status failed: %v", err)
		}
		if !strings.Contains(env.out.String(), "Not signed in") || !strings.Contains(env.out.String(), "service unavailable") {
			t.Errorf("unexpected output: %s", env.out.String())
		}
	})

	t.Run("login without identity config", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.NewLogger(&bytes.Buffer{})})
		app := &cli.Command{Name: "tflow", Commands: runner.register()}

		err := app.Run(context.Background(), []string{"tflow", "auth", "login"})
		if !errors.Is(err, identity.ErrNotConfigured) {
			t.Errorf("expected ErrNotConfigured, got %v", err)
		}
	})

	t.Run("logout with a provider that cannot sign out", func(t *testing.T) {
		env := newTestEnv(t, &identity.Static{})

		if err := env.run("auth", "logout"); !errors.Is(err, identity.ErrNotConfigured) {
			t.Errorf("expected ErrNotConfigured, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config creates and updates the file", func(t *testing.T) {
		env := newTestEnv(t, nil)
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := env.run("setup", "config", "-c", path, "--api-url", "http://backend:8080", "--lang", "fr"); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}

		cfg, err := shared.LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if cfg.API.BaseURL != "http://backend:8080" || cfg.Upload.TargetLanguage != "fr" {
			t.Errorf("unexpected config: %+v", cfg)
		}
	})

	t.Run("config defaults to the working directory", func(t *testing.T) {
		wd := tu.MustGetwd(t)
		t.Cleanup(func() { tu.MustChdir(t, wd) })
		dir := t.TempDir()
		tu.MustChdir(t, dir)

		env := newTestEnv(t, nil)
		if err := env.run("setup", "config"); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
		if !strings.Contains(env.out.String(), "Next steps:") {
			t.Errorf("unexpected output: %s", env.out.String())
		}
	})

	t.Run("database", func(t *testing.T) {
		env := newTestEnv(t, nil)
		dir := t.TempDir()
		configPath := filepath.Join(dir, "config.toml")

		cfg := shared.DefaultConfig()
		cfg.Database.Path = filepath.Join(dir, "data", "tflow.db")
		if err := shared.SaveConfig(configPath, cfg); err != nil {
			t.Fatal(err)
		}

		if err := env.run("setup", "database", "-c", configPath); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		tu.AssertFileExists(t, cfg.Database.Path)
	})
}

func TestPresenters(t *testing.T) {
	t.Run("notifier", func(t *testing.T) {
		var buf bytes.Buffer
		n := &cliNotifier{w: &buf}
		n.Success("done", 0)
		n.Error("broken", 0)
		n.Warning("careful", 0)
		n.Info("fyi", 0)

		out := buf.String()
		for _, want := range []string{"✓ done", "✗ broken", "! careful", "• fyi"} {
			if !strings.Contains(out, want) {
				t.Errorf("notifier output missing %q: %s", want, out)
			}
		}
	})

	t.Run("renderer write failure is kept", func(t *testing.T) {
		r := &cliRenderer{out: &tu.FWriter{}, status: &bytes.Buffer{}, logger: shared.NewLogger(&bytes.Buffer{})}
		r.RenderResult("a.mp3", sampleResult())
		if r.err == nil {
			t.Error("expected write error to be recorded")
		}
	})

	t.Run("renderer status lines", func(t *testing.T) {
		var status bytes.Buffer
		r := &cliRenderer{out: &bytes.Buffer{}, status: &status, logger: shared.NewLogger(&bytes.Buffer{})}
		r.StateChanged(upload.InFlight, true)
		r.RenderHistoryCount(7)
		r.LimitReached(0)

		out := status.String()
		for _, want := range []string{"Uploading", "7 transcriptions", "0/2"} {
			if !strings.Contains(out, want) {
				t.Errorf("status output missing %q: %s", want, out)
			}
		}
	})
}
