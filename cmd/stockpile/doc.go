// Command stockpile retrieves software packages and drivers from mirrors,
// a local cache, or a mounted share, and maintains the shared install
// manifest consumed by provisioning tooling.
package main
