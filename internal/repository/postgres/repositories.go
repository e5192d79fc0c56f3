package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Companies    *CompanyRepository
	Entitlements *EntitlementRepository
	UserTypes    *UserTypeRepository
	CompanyUsers *CompanyUserRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Companies:    NewCompanyRepository(pool),
		Entitlements: NewEntitlementRepository(pool),
		UserTypes:    NewUserTypeRepository(pool),
		CompanyUsers: NewCompanyUserRepository(pool),
	}
}
