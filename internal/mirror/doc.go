// Package mirror implements the task-execution engine of the site mirror:
// mapping URLs onto a mirror directory tree, scanning rendered markup for
// asset references, filtering which references are in scope, and placing
// pages and downloaded assets at their mirrored location.
package mirror
