// Package render sits at the submission boundary of a form: it turns a
// controller snapshot into a nested request payload and maps server error
// payloads back onto qualified field names.
package render
