// Package costs tracks money spent on metered providers during a run and
// enforces the configured budget.
package costs
