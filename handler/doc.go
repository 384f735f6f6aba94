// Package handler exposes a node's Result Tree over HTTP.
//
//	GET /      the tree as JSON
//	GET /text  the tree as indented text
//
// Both routes run inside Boundary, which joins the request's trace session
// and turns anything that escapes handling into a logged 500 response with
// a plain-text diagnostic. The process keeps serving afterwards.
package handler
