// Package journal records broadcast cycle history in a local SQLite
// database so operators can inspect past cycles after the fact.
package journal
