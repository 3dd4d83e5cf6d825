package server

// Handler maps a request to the response written back to the client. A
// handler must return a non-nil Response.
type Handler func(req *Request) *Response

type route struct {
	method  Method
	path    string
	handler Handler
}

// routeTable is append-only. It is filled before serving starts and only
// read afterwards, so lookups take no lock.
type routeTable struct {
	routes []route
}

func (t *routeTable) register(method Method, path string, h Handler) {
	t.routes = append(t.routes, route{method: method, path: path, handler: h})
}

// lookup returns the first route registered for method and path. Paths are
// compared as exact strings.
func (t *routeTable) lookup(method Method, path string) (Handler, bool) {
	for _, r := range t.routes {
		if r.method == method && r.path == path {
			return r.handler, true
		}
	}
	return nil, false
}

func (t *routeTable) route(req *Request) (Handler, bool) {
	return t.lookup(req.Method, req.Path)
}

// Handle registers h for method and path. Registration must finish before
// the server starts serving; it panics on a started server, an unsupported
// method, an empty path, or a nil handler. Duplicate registrations are kept
// and the first one always wins.
func (s *Server) Handle(method Method, path string, h Handler) {
	if !method.Valid() {
		panic("server: unsupported method " + string(method))
	}
	if path == "" {
		panic("server: empty route path")
	}
	if h == nil {
		panic("server: nil handler for " + string(method) + " " + path)
	}
	if s.State() != StateCreated {
		panic("server: route " + string(method) + " " + path + " registered after Listen")
	}
	s.routes.register(method, path, h)
}

func (s *Server) Get(path string, h Handler) { s.Handle(MethodGet, path, h) }
func (s *Server) Head(path string, h Handler) { s.Handle(MethodHead, path, h) }
func (s *Server) Post(path string, h Handler) { s.Handle(MethodPost, path, h) }
func (s *Server) Put(path string, h Handler) { s.Handle(MethodPut, path, h) }
func (s *Server) Patch(path string, h Handler) { s.Handle(MethodPatch, path, h) }
func (s *Server) Delete(path string, h Handler) { s.Handle(MethodDelete, path, h) }
