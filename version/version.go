package version

// Version is the current release of the beacon binary
const Version = "0.1.0"
