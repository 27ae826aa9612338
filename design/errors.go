package design

import "errors"

// ErrCaptureFailed marks a page rendering or snapshot failure upstream of the
// engine.
var ErrCaptureFailed = errors.New("design: capture failed")

// ErrClassificationFailed marks an image classifier failure upstream of the
// engine.
var ErrClassificationFailed = errors.New("design: classification failed")
