package types

// Version is the canonical agharvest version.
// Run records and notification payloads carry it as contract_version.
const Version = "0.4.0"

// ContractVersion is the version stamped on archived records and events.
// Kept in lockstep with Version.
const ContractVersion = Version
