// Package games ships the built-in rule sets and the catalog that maps game
// type tags to them.
//
// Every rule set implements ports.Rules over its own state type. States are
// plain structs with JSON tags so snapshots can be persisted and shown to
// decision makers; hidden information is tagged json:"-".
package games
