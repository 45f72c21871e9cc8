package growth

import (
	"fmt"

	"github.com/couchcryptid/farm-sim-service/internal/domain"
)

// Restore rebuilds field state from the snapshots of the last persisted day.
// Every configured field must appear exactly once; on any mismatch the
// engine is left untouched and an error wrapping ErrInvalidArgument is
// returned.
func (e *Engine) Restore(snapshots []domain.FieldSnapshot) error {
	if len(snapshots) != len(e.cfg.Fields) {
		return fmt.Errorf("%w: snapshot has %d fields, catalog has %d",
			domain.ErrInvalidArgument, len(snapshots), len(e.cfg.Fields))
	}
	byID := make(map[int]domain.FieldSnapshot, len(snapshots))
	for _, s := range snapshots {
		byID[s.FieldID] = s
	}

	restored := make([]domain.FieldState, len(e.cfg.Fields))
	for i, def := range e.cfg.Fields {
		s, ok := byID[def.ID]
		if !ok {
			return fmt.Errorf("%w: field %d missing from snapshot", domain.ErrInvalidArgument, def.ID)
		}
		if crop := e.cfg.Crops[def.CropIndex].Name; s.CropName != crop {
			return fmt.Errorf("%w: field %d grows %q, snapshot has %q", domain.ErrInvalidArgument, def.ID, crop, s.CropName)
		}
		if !s.Status.Valid() {
			return fmt.Errorf("%w: field %d has unknown status %q", domain.ErrInvalidArgument, def.ID, s.Status)
		}
		if s.Status != domain.StatusUnplanted && s.PlantingDate == nil {
			return fmt.Errorf("%w: field %d is %q without a planting date", domain.ErrInvalidArgument, def.ID, s.Status)
		}
		restored[i] = domain.FieldState{
			FieldID:       def.ID,
			FieldName:     def.Name,
			Area:          def.Size,
			CropIndex:     def.CropIndex,
			PlantingDate:  s.PlantingDate,
			HarvestDate:   s.HarvestDate,
			GrowthStage:   domain.Clamp(s.GrowthStage, 0, 100),
			HealthStatus:  domain.Clamp(s.HealthStatus, 0, 100),
			WaterReceived: s.WaterReceived,
			ExpectedYield: s.ExpectedYield,
			ActualYield:   s.ActualYield,
			Status:        s.Status,
		}
	}

	e.fields = restored
	return nil
}
