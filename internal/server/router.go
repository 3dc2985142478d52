package server

import (
	"net/http"
	"slices"
	"strings"
)

// BasicRouter is the [Router] behind the callback server.
//
// Paths are matched exactly by [http.ServeMux]; a path registered for several methods
// answers 405 with an Allow header for any other. Unknown paths get [NotFoundPage].
type BasicRouter struct {
	mux         *http.ServeMux
	methods     map[string][]string
	handlers    map[string]map[string]http.Handler
	middlewares []Middleware
}

// NotFoundPage is the body served for paths the sign-in flow does not use.
const NotFoundPage = "tflow: nothing to see here, return to your terminal.\n"

// NewBasicRouter creates an empty [BasicRouter].
func NewBasicRouter() *BasicRouter {
	r := &BasicRouter{
		mux:      http.NewServeMux(),
		methods:  map[string][]string{},
		handlers: map[string]map[string]http.Handler{},
	}
	r.mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(NotFoundPage))
	})
	return r
}

// Use appends middleware. Middleware must be added before routes are registered.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for method on path.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	method = strings.ToUpper(method)

	if _, ok := r.handlers[path]; !ok {
		r.handlers[path] = map[string]http.Handler{}
		r.mux.Handle(path, r.Apply(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.dispatch(path, w, req)
		})))
	}
	r.handlers[path][method] = handler
	if !slices.Contains(r.methods[path], method) {
		r.methods[path] = append(r.methods[path], method)
		slices.Sort(r.methods[path])
	}
}

// Handler registers handler for GET on each of its [Handler.Routes].
func (r *BasicRouter) Handler(handler Handler) {
	for _, route := range handler.Routes() {
		r.Handle(http.MethodGet, route, handler)
	}
}

func (r *BasicRouter) dispatch(path string, w http.ResponseWriter, req *http.Request) {
	method := req.Method
	if method == http.MethodHead {
		method = http.MethodGet
	}
	if h, ok := r.handlers[path][method]; ok {
		h.ServeHTTP(w, req)
		return
	}
	w.Header().Set("Allow", strings.Join(r.methods[path], ", "))
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// ServeHTTP implements [http.Handler].
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps handler with the registered middleware, first added outermost.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}
	return wrapped
}
