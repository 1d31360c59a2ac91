// Package distribution maps a resolved version onto a downloadable MongoDB
// archive and keeps unpacked archives in a local cache.
package distribution
