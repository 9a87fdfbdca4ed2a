// Command plenum manages a resumable download ledger for parliamentary
// session media. An external scheduler launches one `plenum run` per
// partition; import, status, and retry are operator commands against the
// shared ledger.
package main
