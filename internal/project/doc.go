// Package project resolves the repository, configuration, and ledger
// location for one grit project.
//
// A project is a git repository with a .grit directory containing
// metadata.toml. The ledger database lives outside the repository, in
// the global config area, keyed by the project's id; it is never
// version-controlled and can be rebuilt from the data branch at any
// time.
package project
