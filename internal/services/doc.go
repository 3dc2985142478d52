// Package services implements the [Service] interface over the TranscribeFlow backend's HTTP API.
//
// # Endpoints
//
//   - POST /upload : multipart form with audio, target_lang, enable_diarization and upload_mode
//   - GET /history : JSON array of stored transcriptions
//   - DELETE /history/{id} and DELETE /history/delete-all : {success, error, message}
//   - GET /uploads/{filename} : the uploaded audio
//
// # Requests
//
// Every request carries an X-Request-ID header and passes through a token bucket
// limiter (unlimited unless configured). Uploads made by a signed-in user carry
// an Authorization: Bearer header.
//
// # Error Handling
//
// Transport errors are wrapped with [shared.ErrAPIRequest]. Non-2xx responses
// return [ErrHTTPStatus] with the body's "error" field when present. Missing
// fields in an otherwise valid body take their zero values.
package services
