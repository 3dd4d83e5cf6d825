package server

import "net/http"

// HttpStatus is a status code paired with the reason phrase written on the
// status line.
type HttpStatus struct {
	Code    int
	Message string
}

var (
	StatusOK                  = HttpStatus{http.StatusOK, "OK"}
	StatusCreated             = HttpStatus{http.StatusCreated, "Created"}
	StatusNoContent           = HttpStatus{http.StatusNoContent, "No Content"}
	StatusBadRequest          = HttpStatus{http.StatusBadRequest, "Bad Request"}
	StatusNotFound            = HttpStatus{http.StatusNotFound, "Not Found"}
	StatusMethodNotAllowed    = HttpStatus{http.StatusMethodNotAllowed, "Method Not Allowed"}
	StatusContentTooLarge     = HttpStatus{http.StatusRequestEntityTooLarge, "Content Too Large"}
	StatusInternalServerError = HttpStatus{http.StatusInternalServerError, "Internal Server Error"}
	StatusServiceUnavailable  = HttpStatus{http.StatusServiceUnavailable, "Service Unavailable"}
)

var statusCatalog = []HttpStatus{
	StatusOK,
	StatusCreated,
	StatusNoContent,
	StatusBadRequest,
	StatusNotFound,
	StatusMethodNotAllowed,
	StatusContentTooLarge,
	StatusInternalServerError,
	StatusServiceUnavailable,
}

// StatusFromCode returns the catalog entry for code. Codes outside the
// catalog fall back to net/http's reason phrase.
func StatusFromCode(code int) HttpStatus {
	for _, st := range statusCatalog {
		if st.Code == code {
			return st
		}
	}
	return HttpStatus{Code: code, Message: http.StatusText(code)}
}

func (s HttpStatus) valid() bool {
	return s.Code >= 100 && s.Code <= 999
}
