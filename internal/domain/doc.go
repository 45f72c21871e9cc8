// Package domain models the synthetic farm simulation: daily weather
// observations, crop and field catalogs, per-field lifecycle state, and the
// combined daily records served to the dashboard.
//
// # Wire Contract
//
// Records are consumed by a dashboard that reads fields by name, so JSON keys
// and units are fixed:
//
//	environmental.{temperature °C, humidity %, precipitation mm}
//	production.fields[].{growthStage %, healthStatus %, expectedYield t, status}
//	production.harvests[].{totalYield t, revenue, costs, profit, ...}
//	production.stats.{fieldsPlanted, averageHealth, profitToday, ...}
//
// Lifecycle status values are the dashboard's original labels:
//
//	"non piantato"             unplanted
//	"in crescita"              growing
//	"pronto per il raccolto"   ready to harvest
//	"raccolto"                 harvested
//
// # Rounding
//
// Internal state keeps full precision. Values leaving the engine are rounded
// the way the dashboard displays them: temperature and precipitation to 0.1,
// humidity to an integer, growth and health to 0.1, tonnages and money to
// 0.01, water efficiency to 0.001. See [Round].
//
// # Dates
//
// Record dates are simulation dates, not wall-clock time. The "date" key is a
// calendar day (2006-01-02) and "timestamp" is the full RFC 3339 instant, which
// is what strictly increases when the time step is hourly.
package domain
