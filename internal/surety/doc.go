// Package surety is the governance and settlement core of the flight delay
// insurance platform.
//
// A Ledger holds every record (airlines, flights, policies, oracles and open
// status requests) together with the owner's pause switch and the allowlist of
// apps that may write to it. An App implements the entrypoints on top of a
// ledger: airline admission and funding, flight registration, oracle
// registration and status consensus, and the insurance escrow.
//
// Every entrypoint takes an explicit Tx naming the caller and the value sent.
// Transactions are serialized by the ledger and either commit completely,
// publishing their events in order, or fail with an *Error and leave the
// ledger untouched.
package surety
