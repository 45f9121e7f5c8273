// Package httputil holds the JSON response and request helpers shared by the
// HTTP handlers and middleware.
package httputil
