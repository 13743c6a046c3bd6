package instance

import "github.com/dwayee/storefront/pkg/env"

// GetID names this storefront process in logs.
func GetID() string {
	return env.First("local", "DWAYEE_INSTANCE_ID", "DYNO", "HOSTNAME")
}
