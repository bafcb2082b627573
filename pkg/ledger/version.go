package ledger

// Version is the docket release version.
const Version = "0.1.0"
