// Package all wires every storage backend into the factory. Blank-import it
// from the binary that calls storage.New; libraries and tests import only
// the backends they need.
package all

import (
	_ "ecometl/internal/storage/postgres"
	_ "ecometl/internal/storage/sqlite"
)
