package growth_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/couchcryptid/farm-sim-service/internal/domain"
	"github.com/couchcryptid/farm-sim-service/internal/growth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

func tomatoes() domain.CropProfile {
	return growth.DefaultCrops()[0] // 80 days, 20-32 °C, 60-90 %
}

// benignConfig is one 5 ha field with pests and disease switched off.
func benignConfig() growth.Config {
	params := growth.DefaultParams()
	params.PestProbability = 0
	params.DiseaseProbability = 0
	return growth.Config{
		Crops:  []domain.CropProfile{tomatoes()},
		Fields: []domain.FieldDefinition{{ID: 1, Name: "Campo 1", Size: 5, CropIndex: 0}},
		Params: params,
	}
}

func newEngine(t *testing.T, cfg growth.Config) *growth.Engine {
	t.Helper()
	e, err := growth.New(cfg, rand.NewPCG(1, 2))
	require.NoError(t, err)
	return e
}

func day(n int, temp, humidity, rain float64) domain.Observation {
	ts := start.AddDate(0, 0, n-1)
	return domain.Observation{
		Timestamp:     ts,
		Date:          ts.Format(domain.DateLayout),
		Temperature:   temp,
		Humidity:      humidity,
		Precipitation: rain,
	}
}

func optimal(n int) domain.Observation { return day(n, 25, 70, 2) }

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*growth.Config)
	}{
		{"no fields", func(c *growth.Config) { c.Fields = nil }},
		{"no crops", func(c *growth.Config) { c.Crops = nil }},
		{"duplicate id", func(c *growth.Config) { c.Fields[1].ID = c.Fields[0].ID }},
		{"zero area", func(c *growth.Config) { c.Fields[0].Size = 0 }},
		{"negative area", func(c *growth.Config) { c.Fields[2].Size = -4 }},
		{"unknown crop", func(c *growth.Config) { c.Fields[0].CropIndex = 9 }},
		{"negative crop", func(c *growth.Config) { c.Fields[0].CropIndex = -1 }},
		{"zero growth days", func(c *growth.Config) { c.Crops[0].GrowthDays = 0 }},
		{"inverted temperature", func(c *growth.Config) { c.Crops[1].OptimalTemp = domain.Range{Min: 30, Max: 10} }},
		{"inverted humidity", func(c *growth.Config) { c.Crops[2].OptimalHumidity = domain.Range{Min: 90, Max: 10} }},
		{"pest probability", func(c *growth.Config) { c.Params.PestProbability = 1.2 }},
		{"harvest probability", func(c *growth.Config) { c.Params.HarvestProbability = -0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := growth.DefaultConfig()
			tt.mutate(&cfg)
			_, err := growth.New(cfg, rand.NewPCG(1, 2))
			require.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}
}

func TestNew_AllFieldsUnplanted(t *testing.T) {
	e := newEngine(t, growth.DefaultConfig())
	fields := e.Fields()
	require.Len(t, fields, 3)
	for i, f := range fields {
		assert.Equal(t, domain.StatusUnplanted, f.Status)
		assert.Equal(t, growth.DefaultFields()[i].ID, f.FieldID)
		assert.Nil(t, f.PlantingDate)
	}
}

func TestStressFactor(t *testing.T) {
	crop := tomatoes()
	tests := []struct {
		name     string
		temp     float64
		humidity float64
		want     float64
	}{
		{"optimal", 25, 70, 1},
		{"range edges", 20, 90, 1},
		{"5 degrees too cold", 15, 70, 0.5*0.6 + 0.4},
		{"10 degrees too hot", 42, 70, 0.4},
		{"far too cold", -5, 70, 0.4},
		{"15 points too dry", 25, 45, 0.6 + 0.5*0.4},
		{"both far off", 0, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := growth.StressFactor(domain.Observation{Temperature: tt.temp, Humidity: tt.humidity}, crop)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestSimulateDay_PlantsOnFirstDay(t *testing.T) {
	e := newEngine(t, growth.DefaultConfig())
	obs := optimal(1)

	prod := e.SimulateDay(obs)

	assert.Equal(t, obs.Date, prod.Date)
	assert.Equal(t, obs.Timestamp, prod.Timestamp)
	require.Len(t, prod.Fields, 3)
	for i, s := range prod.Fields {
		crop := growth.DefaultCrops()[growth.DefaultFields()[i].CropIndex]
		assert.Equal(t, domain.StatusGrowing, s.Status)
		assert.Equal(t, crop.Name, s.CropName)
		require.NotNil(t, s.PlantingDate)
		assert.Equal(t, obs.Timestamp, *s.PlantingDate)
		require.NotNil(t, s.HarvestDate)
		assert.Equal(t, obs.Timestamp.AddDate(0, 0, crop.GrowthDays), *s.HarvestDate)
		assert.Greater(t, s.GrowthStage, 0.0, "planting day also grows")
	}
	assert.Empty(t, prod.Harvests)
	assert.Equal(t, 3, prod.Stats.TotalFields)
	assert.Equal(t, 3, prod.Stats.FieldsPlanted)
	assert.Zero(t, prod.Stats.FieldsHarvested)
	assert.Zero(t, prod.Stats.TotalHarvestedToday)
	assert.Zero(t, prod.Stats.ProfitToday)
}

func TestSimulateDay_ReadyAfterExactlyGrowthDays(t *testing.T) {
	e := newEngine(t, benignConfig())

	for n := 1; n < 80; n++ {
		prod := e.SimulateDay(optimal(n))
		require.Equal(t, domain.StatusGrowing, prod.Fields[0].Status, "day %d", n)
		require.Equal(t, 100.0, e.Fields()[0].HealthStatus, "day %d", n)
	}

	prod := e.SimulateDay(optimal(80))
	assert.Equal(t, domain.StatusReadyToHarvest, prod.Fields[0].Status)
	assert.Equal(t, 100.0, prod.Fields[0].GrowthStage)
	assert.Empty(t, prod.Harvests, "no harvest on the day the crop becomes ready")
}

func TestSimulateDay_HealthStaysFullUnderOptimalWeather(t *testing.T) {
	cfg := benignConfig()
	cfg.Params.HarvestProbability = 1
	e := newEngine(t, cfg)

	for n := 1; n <= 120; n++ {
		e.SimulateDay(optimal(n))
		assert.Equal(t, 100.0, e.Fields()[0].HealthStatus, "day %d", n)
	}
}

func TestSimulateDay_HarvestFinancials(t *testing.T) {
	cfg := benignConfig()
	cfg.Params.HarvestProbability = 1
	cfg.Params.RandomVariation = 0
	e := newEngine(t, cfg)

	for n := 1; n <= 80; n++ {
		e.SimulateDay(day(n, 25, 70, 10))
	}
	prod := e.SimulateDay(day(81, 25, 70, 10))

	require.Len(t, prod.Harvests, 1)
	h := prod.Harvests[0]
	crop := tomatoes()

	assert.Equal(t, 1, h.FieldID)
	assert.Equal(t, crop.Name, h.CropName)
	assert.Equal(t, optimal(81).Timestamp, h.HarvestDate)
	assert.Equal(t, 5.0, h.AreaHarvested)
	// 810 mm exceeds water needs, health is full: expected = 35 t/ha × 5 ha.
	assert.GreaterOrEqual(t, h.TotalYield, 175*0.95-0.01)
	assert.LessOrEqual(t, h.TotalYield, 175*1.05+0.01)
	assert.InDelta(t, h.TotalYield*crop.PricePerTon, h.Revenue, 3)
	assert.Equal(t, 17500.0, h.Costs)
	assert.InDelta(t, h.Revenue-h.Costs, h.Profit, 0.011)
	assert.InDelta(t, h.TotalYield/175*100, h.Efficiency, 0.01)
	assert.InDelta(t, h.TotalYield/5, h.YieldPerHectare, 0.01)
	require.NotNil(t, h.WaterEfficiency)
	assert.InDelta(t, h.TotalYield/810, *h.WaterEfficiency, 0.001)
	assert.Equal(t, 100.0, h.HealthAtHarvest)

	assert.Equal(t, domain.StatusHarvested, prod.Fields[0].Status)
	assert.Equal(t, h.TotalYield, prod.Fields[0].ActualYield)
	assert.Equal(t, 1, prod.Stats.FieldsHarvested)
	assert.Equal(t, h.TotalYield, prod.Stats.TotalHarvestedToday)
	assert.Equal(t, h.Profit, prod.Stats.ProfitToday)
}

func TestSimulateDay_ZeroWaterHarvestHasNullEfficiency(t *testing.T) {
	cfg := benignConfig()
	cfg.Params.HarvestProbability = 1
	e := newEngine(t, cfg)

	var harvests []domain.HarvestEvent
	for n := 1; n <= 81; n++ {
		harvests = append(harvests, e.SimulateDay(day(n, 25, 70, 0)).Harvests...)
	}

	require.Len(t, harvests, 1)
	assert.Nil(t, harvests[0].WaterEfficiency)
}

func TestSimulateDay_HarvestedFieldIsFrozen(t *testing.T) {
	cfg := benignConfig()
	cfg.Params.HarvestProbability = 1
	e := newEngine(t, cfg)

	for n := 1; n <= 81; n++ {
		e.SimulateDay(optimal(n))
	}
	frozen := e.Fields()[0]
	require.Equal(t, domain.StatusHarvested, frozen.Status)

	for n := 82; n <= 200; n++ {
		prod := e.SimulateDay(day(n, 40, 100, 30))
		assert.Empty(t, prod.Harvests)
	}
	assert.Equal(t, frozen, e.Fields()[0])
}

func TestSimulateDay_ReadyFieldWaitsWithoutDecay(t *testing.T) {
	cfg := benignConfig()
	cfg.Params.HarvestProbability = 0
	e := newEngine(t, cfg)

	for n := 1; n <= 80; n++ {
		e.SimulateDay(optimal(n))
	}
	ready := e.Fields()[0]
	require.Equal(t, domain.StatusReadyToHarvest, ready.Status)

	// Hostile weather no longer touches health or growth once ready.
	for n := 81; n <= 120; n++ {
		prod := e.SimulateDay(day(n, 45, 20, 1))
		assert.Empty(t, prod.Harvests)
	}
	after := e.Fields()[0]
	assert.Equal(t, domain.StatusReadyToHarvest, after.Status)
	assert.Equal(t, ready.HealthStatus, after.HealthStatus)
	assert.Equal(t, ready.GrowthStage, after.GrowthStage)
	assert.InDelta(t, ready.WaterReceived+40, after.WaterReceived, 1e-9)
}

func TestSimulateDay_InvariantsOverLongRandomRun(t *testing.T) {
	e, err := growth.New(growth.DefaultConfig(), rand.NewPCG(2024, 7))
	require.NoError(t, err)
	wx := rand.New(rand.NewPCG(9, 9))

	harvested := map[int]int{}
	seenHarvested := map[int]bool{}
	for n := 1; n <= 730; n++ {
		obs := day(n, wx.Float64()*45-5, float64(20+wx.IntN(81)), float64(wx.IntN(20)))
		prod := e.SimulateDay(obs)

		for _, h := range prod.Harvests {
			harvested[h.FieldID]++
		}
		for _, s := range prod.Fields {
			assert.GreaterOrEqual(t, s.GrowthStage, 0.0)
			assert.LessOrEqual(t, s.GrowthStage, 100.0)
			assert.GreaterOrEqual(t, s.HealthStatus, 0.0)
			assert.LessOrEqual(t, s.HealthStatus, 100.0)
			assert.True(t, s.Status.Valid())
			if seenHarvested[s.FieldID] {
				assert.Equal(t, domain.StatusHarvested, s.Status, "field %d left harvested state", s.FieldID)
			}
			if s.Status == domain.StatusHarvested {
				seenHarvested[s.FieldID] = true
			}
		}
	}
	for id, n := range harvested {
		assert.Equal(t, 1, n, "field %d harvested more than once", id)
	}
}

func TestReset_ReproducesFirstDayStructure(t *testing.T) {
	e := newEngine(t, growth.DefaultConfig())
	for n := 1; n <= 100; n++ {
		e.SimulateDay(optimal(n))
	}
	e.Reset()
	afterReset := e.SimulateDay(optimal(1))

	fresh := newEngine(t, growth.DefaultConfig()).SimulateDay(optimal(1))

	require.Len(t, afterReset.Fields, len(fresh.Fields))
	for i := range fresh.Fields {
		assert.Equal(t, fresh.Fields[i].FieldID, afterReset.Fields[i].FieldID)
		assert.Equal(t, fresh.Fields[i].Status, afterReset.Fields[i].Status)
		assert.Equal(t, fresh.Fields[i].PlantingDate, afterReset.Fields[i].PlantingDate)
		assert.Equal(t, fresh.Fields[i].HarvestDate, afterReset.Fields[i].HarvestDate)
	}
	assert.Equal(t, fresh.Stats.FieldsPlanted, afterReset.Stats.FieldsPlanted)
}

func TestClone_IsIndependent(t *testing.T) {
	e := newEngine(t, growth.DefaultConfig())
	for n := 1; n <= 10; n++ {
		e.SimulateDay(optimal(n))
	}
	before := e.Fields()

	clone := e.Clone()
	var fromClone []domain.ProductionDay
	for n := 11; n <= 20; n++ {
		fromClone = append(fromClone, clone.SimulateDay(optimal(n)))
	}
	assert.Equal(t, before, e.Fields(), "original untouched by clone")

	for n := 11; n <= 20; n++ {
		assert.Equal(t, fromClone[n-11], e.SimulateDay(optimal(n)))
	}
}

func TestRestore_RoundTrip(t *testing.T) {
	src := newEngine(t, growth.DefaultConfig())
	var last domain.ProductionDay
	for n := 1; n <= 90; n++ {
		last = src.SimulateDay(optimal(n))
	}

	dst := newEngine(t, growth.DefaultConfig())
	require.NoError(t, dst.Restore(last.Fields))

	want := src.Fields()
	got := dst.Fields()
	for i := range want {
		assert.Equal(t, want[i].Status, got[i].Status)
		assert.Equal(t, want[i].PlantingDate, got[i].PlantingDate)
		assert.InDelta(t, want[i].GrowthStage, got[i].GrowthStage, 0.05)
		assert.InDelta(t, want[i].HealthStatus, got[i].HealthStatus, 0.05)
		assert.InDelta(t, want[i].WaterReceived, got[i].WaterReceived, 0.05)
	}
}

func TestRestore_RejectsMismatch(t *testing.T) {
	e := newEngine(t, growth.DefaultConfig())
	good := e.SimulateDay(optimal(1)).Fields
	before := e.Fields()

	t.Run("wrong count", func(t *testing.T) {
		require.ErrorIs(t, e.Restore(good[:2]), domain.ErrInvalidArgument)
	})
	t.Run("unknown field", func(t *testing.T) {
		bad := append([]domain.FieldSnapshot(nil), good...)
		bad[0].FieldID = 99
		require.ErrorIs(t, e.Restore(bad), domain.ErrInvalidArgument)
	})
	t.Run("unknown status", func(t *testing.T) {
		bad := append([]domain.FieldSnapshot(nil), good...)
		bad[1].Status = "growing"
		require.ErrorIs(t, e.Restore(bad), domain.ErrInvalidArgument)
	})
	t.Run("crop changed", func(t *testing.T) {
		bad := append([]domain.FieldSnapshot(nil), good...)
		bad[0].CropName = "Barley"
		err := e.Restore(bad)
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.Contains(t, err.Error(), `snapshot has "Barley"`)
	})
	t.Run("growing without planting date", func(t *testing.T) {
		bad := append([]domain.FieldSnapshot(nil), good...)
		bad[2].PlantingDate = nil
		require.ErrorIs(t, e.Restore(bad), domain.ErrInvalidArgument)
	})

	assert.Equal(t, before, e.Fields())
}
