package core

// RegistryRecord binds a token mint to the company and vintage year it was issued under
type RegistryRecord struct {
	TokenMint string `json:"tokenMint"`
	CompanyID string `json:"companyId16"`
	Year      int    `json:"year"`
}

// RawRegistryAccount is a leniently decoded registry account. Any field may be missing.
type RawRegistryAccount struct {
	Address   string
	TokenMint *string
	CompanyID []byte
	Year      *int
}
