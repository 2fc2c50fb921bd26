package walledgarden

// Version of the walled garden programs and hook API. Hook libraries
// must be compiled against the same version to be loaded.
const Version = "1.2.0"

// Build date of the programs. It is overridden by the linker.
var BuildDate = "unset" //nolint:gochecknoglobals
