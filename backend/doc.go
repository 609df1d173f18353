// Package backend provides a registry for storage backends. A backend whose
// construction cannot fail registers itself in an init function, so importing
// it is enough to make its name resolvable; backends with fallible
// construction are built explicitly and registered by the host.
package backend
