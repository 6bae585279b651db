/*
Package domain contains the core types of the Genius session orchestration engine.

It defines the session lifecycle, players and their decision sources, actions
and AI decisions, snapshots handed to read-only consumers, and the GameError
taxonomy shared by every other package.

The package has no dependencies on adapters or infrastructure.
*/
package domain
