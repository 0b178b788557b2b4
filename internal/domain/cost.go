package domain

// Tariff used to estimate the operating cost of a mission.
type CostParameters struct {
	BaseMissionCost      float64
	CostPerKm            float64
	CostPerHour          float64
	FuelPricePerLiter    float64
	FuelLitersPer100Km   float64
	DriverCostPerHour    float64
	TollCostPerKm        float64
	InsurancePerMission  float64
	MaintenanceCostPerKm float64
}

// DefaultCostParameters mirrors the default parameter set shipped with the mission planner.
func DefaultCostParameters() CostParameters {
	return CostParameters{
		BaseMissionCost:      50.0,
		CostPerKm:            1.2,
		CostPerHour:          25.0,
		FuelPricePerLiter:    12.0,
		FuelLitersPer100Km:   30.0,
		DriverCostPerHour:    20.0,
		TollCostPerKm:        0.3,
		InsurancePerMission:  20.0,
		MaintenanceCostPerKm: 0.4,
	}
}

type CostBreakdown struct {
	Base        float64
	Distance    float64
	Time        float64
	Fuel        float64
	Driver      float64
	Toll        float64
	Insurance   float64
	Maintenance float64
	Total       float64
}

// EstimateCost prices a resolved route with the given tariff.
func (c CostParameters) EstimateCost(r RouteResult) CostBreakdown {
	hours := r.DurationMinutes / 60

	b := CostBreakdown{
		Base:        c.BaseMissionCost,
		Distance:    r.DistanceKm * c.CostPerKm,
		Time:        hours * c.CostPerHour,
		Fuel:        r.DistanceKm / 100 * c.FuelLitersPer100Km * c.FuelPricePerLiter,
		Driver:      hours * c.DriverCostPerHour,
		Toll:        r.DistanceKm * c.TollCostPerKm,
		Insurance:   c.InsurancePerMission,
		Maintenance: r.DistanceKm * c.MaintenanceCostPerKm,
	}
	b.Total = b.Base + b.Distance + b.Time + b.Fuel + b.Driver + b.Toll + b.Insurance + b.Maintenance
	return b
}
