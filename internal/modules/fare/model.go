// README: Fare configuration and price computation.
package fare

// Config is the singleton pricing configuration, externally administered.
// All amounts are integer cents.
type Config struct {
	BaseFareCents  int64
	PerKmCents     int64
	PerMinuteCents int64
	MinFareCents   int64
}

// DefaultConfig is used whenever no fare_config row exists.
func DefaultConfig() Config {
	return Config{
		BaseFareCents:  500,
		PerKmCents:     250,
		PerMinuteCents: 50,
		MinFareCents:   800,
	}
}
