package model

// Tenant identifies one business's isolated books.
type Tenant string

// DefaultTenant is used when a single-business installation does not name one.
const DefaultTenant Tenant = "default"
