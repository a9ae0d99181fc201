package domain

// Environment selects which backend base URL requests resolve against.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvDevelopment Environment = "development"
)

// IsProduction reports whether the environment targets the production API.
func (e Environment) IsProduction() bool {
	return e == EnvProduction
}
