// Package archive reads and writes the monthly mission archives the
// matcher runs on. Each archive is one SQLite file per mission, product
// version and calendar month:
//
//	<l1p_root>/<mission>/<version>/l1p_<mission>_<yyyymm>.db
//	<l2i_root>/<mission>/<version>/l2i_<mission>_<yyyymm>.db
//
// L1p archives carry geolocation (orbits and points tables) and feed
// the track model. L2i archives carry the geophysical parameter columns
// sampled onto the same orbit/index grid and feed match annotation.
//
// A missing archive file is reported by wrapping ErrUnavailable so
// callers can skip the period instead of failing the run.
package archive
