// Package ledger persists the card inventory backed by SQLite: accounts,
// the card catalog rows they reference, processed screenshots, per-card
// provenance, and shinedust removal records. Card quantities are never
// stored; they are derived by counting provenance rows so the inventory
// cannot drift from its evidence.
package ledger
