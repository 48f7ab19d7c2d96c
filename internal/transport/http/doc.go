// Package http contains the HTTP handlers exposing the license engine to the
// host application over the local API.
package http
