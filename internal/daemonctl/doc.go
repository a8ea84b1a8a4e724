// Package daemonctl installs and starts the synchronization daemon.
//
// Install downloads the vendor archive for a platform and unpacks it into the
// install directory under an exclusive file lock. Launch starts the unpacked
// launcher detached from the CLI, and EnsureRunning combines a connection
// probe, a launch, and a wait for both daemon sockets to accept connections.
package daemonctl
