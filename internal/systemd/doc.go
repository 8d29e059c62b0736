// Package systemd wraps the host service manager.
//
// Two Manager backends exist: SystemctlManager shells out to systemctl and
// DBusManager talks to systemd over D-Bus. Both bound every call with the
// configured timeout and report failures as *ServiceError.
//
// The package also carries the sd_notify Notifier used when quadsync runs
// as a Type=notify unit, and a read-only unit file parser for Quadlet
// definitions.
package systemd
