package version

// Version is overridden at build time with -ldflags "-X ag-tools/internal/version.Version=...".
var Version = "dev"
