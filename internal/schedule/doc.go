// Package schedule plans broadcast activation slots: either a fixed set of
// daily local clock hours or a rolling fixed-duration window.
package schedule
