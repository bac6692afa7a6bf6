// Package facility defines the normalized data-center model consumed by the
// scene engine: the site → building → floor → room → rack → device hierarchy,
// the shared device-type catalog, and the 4D lifecycle vocabulary (Status4D
// snapshots viewed through a Phase lens).
//
// Everything here is plain data. Nothing in this package mutates a scene.
package facility
