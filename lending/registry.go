package lending

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/warp/loanbook/ledger"
	"go.uber.org/zap"
)

// =============================================================================
// AREAS
// =============================================================================

// CreateAreaInput describes a new area. OpeningBalance only applies to
// onboarding areas, which bring the cash they already hold.
type CreateAreaInput struct {
	Name           string
	IsOnboarding   bool
	OpeningBalance ledger.Money
}

// CreateArea saves the area, records its opening balance when onboarding
// with a positive balance, and selects it if nothing is selected yet.
func (s *Service) CreateArea(ctx context.Context, in CreateAreaInput) (ledger.Area, error) {
	name, err := requireName("name", in.Name)
	if err != nil {
		return ledger.Area{}, err
	}
	if in.OpeningBalance.IsNegative() {
		return ledger.Area{}, ledger.Invalid("openingBalance", ledger.ErrInvalidAmount)
	}

	area := ledger.Area{
		ID:           ledger.AreaID(uuid.NewString()),
		Name:         name,
		CreatedAt:    s.Now(),
		IsOnboarding: in.IsOnboarding,
	}
	if err := s.store.SaveArea(ctx, area); err != nil {
		return ledger.Area{}, fmt.Errorf("save area: %w", err)
	}
	s.log.Info("area created", zap.String("area_id", string(area.ID)), zap.Bool("onboarding", area.IsOnboarding))

	if area.IsOnboarding && in.OpeningBalance.IsPositive() {
		if _, err := s.append(ctx, area.ID, ledger.OnboardingBalance{Amount: in.OpeningBalance}); err != nil {
			return ledger.Area{}, err
		}
	}

	selected, ok, err := s.store.Setting(ctx, ledger.SettingSelectedArea)
	if err != nil {
		return ledger.Area{}, fmt.Errorf("load selected area: %w", err)
	}
	if !ok || selected == "" {
		if _, err := s.SelectArea(ctx, area.ID); err != nil {
			return ledger.Area{}, err
		}
	}
	return area, nil
}

func (s *Service) ListAreas(ctx context.Context) ([]ledger.Area, error) {
	return s.store.ListAreas(ctx)
}

// DeleteArea removes the area with its villages, customers and events. If
// it was selected, the oldest remaining area becomes selected.
func (s *Service) DeleteArea(ctx context.Context, id ledger.AreaID) error {
	area, err := s.store.GetArea(ctx, id)
	if err != nil {
		return fmt.Errorf("load area: %w", err)
	}
	if area == nil {
		return ledger.ErrAreaNotFound
	}

	if err := s.store.DeleteArea(ctx, id); err != nil {
		return fmt.Errorf("delete area: %w", err)
	}
	s.log.Info("area deleted", zap.String("area_id", string(id)))

	selected, _, err := s.store.Setting(ctx, ledger.SettingSelectedArea)
	if err != nil {
		return fmt.Errorf("load selected area: %w", err)
	}
	if selected != string(id) {
		return nil
	}

	remaining, err := s.store.ListAreas(ctx)
	if err != nil {
		return fmt.Errorf("list areas: %w", err)
	}
	if len(remaining) == 0 {
		return s.store.SetSetting(ctx, ledger.SettingSelectedArea, "")
	}
	_, err = s.SelectArea(ctx, remaining[0].ID)
	return err
}

// =============================================================================
// VILLAGES
// =============================================================================

// CreateVillage adds a village to the selected area. Its serial counter
// starts at 1.
func (s *Service) CreateVillage(ctx context.Context, name string) (ledger.Village, error) {
	areaID, err := s.currentArea(ctx)
	if err != nil {
		return ledger.Village{}, err
	}
	name, err = requireName("name", name)
	if err != nil {
		return ledger.Village{}, err
	}

	v := ledger.Village{
		ID:               ledger.VillageID(uuid.NewString()),
		AreaID:           areaID,
		Name:             name,
		NextSerialNumber: 1,
		CreatedAt:        s.Now(),
	}
	if err := s.store.SaveVillage(ctx, v); err != nil {
		return ledger.Village{}, fmt.Errorf("save village: %w", err)
	}
	s.log.Info("village created", zap.String("area_id", string(areaID)), zap.String("village_id", string(v.ID)))
	return v, nil
}

// ListVillages returns the selected area's villages.
func (s *Service) ListVillages(ctx context.Context) ([]ledger.Village, error) {
	areaID, err := s.currentArea(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.ListVillages(ctx, areaID)
}

// DeleteVillage removes the village. Its customers keep their denormalized
// village name and show up under "Other" in village groups.
func (s *Service) DeleteVillage(ctx context.Context, id ledger.VillageID) error {
	v, err := s.store.GetVillage(ctx, id)
	if err != nil {
		return fmt.Errorf("load village: %w", err)
	}
	if v == nil {
		return ledger.ErrVillageNotFound
	}
	if err := s.store.DeleteVillage(ctx, id); err != nil {
		return fmt.Errorf("delete village: %w", err)
	}
	s.log.Info("village deleted", zap.String("village_id", string(id)))
	return nil
}

// =============================================================================
// CUSTOMERS
// =============================================================================

type CreateCustomerInput struct {
	VillageID ledger.VillageID
	Name      string
	Phone     string
}

// CreateCustomer registers a borrower in the selected area. The serial
// number is taken from the village counter in the same transaction that
// saves the customer, so a failed save never burns a number.
func (s *Service) CreateCustomer(ctx context.Context, in CreateCustomerInput) (ledger.Customer, error) {
	areaID, err := s.currentArea(ctx)
	if err != nil {
		return ledger.Customer{}, err
	}
	name, err := requireName("name", in.Name)
	if err != nil {
		return ledger.Customer{}, err
	}

	var c ledger.Customer
	err = s.store.WithTx(ctx, func(tx ledger.Store) error {
		v, err := tx.GetVillage(ctx, in.VillageID)
		if err != nil {
			return fmt.Errorf("load village: %w", err)
		}
		if v == nil || v.AreaID != areaID {
			return ledger.ErrVillageNotFound
		}

		serial, err := tx.NextSerial(ctx, v.ID)
		if err != nil {
			return err
		}

		c = ledger.Customer{
			ID:           ledger.CustomerID(uuid.NewString()),
			AreaID:       areaID,
			VillageID:    v.ID,
			VillageName:  v.Name,
			Name:         name,
			Phone:        in.Phone,
			SerialNumber: serial,
			CreatedAt:    s.Now(),
		}
		return tx.SaveCustomer(ctx, c)
	})
	if err != nil {
		return ledger.Customer{}, err
	}

	s.log.Info("customer created",
		zap.String("customer_id", string(c.ID)),
		zap.String("village_id", string(c.VillageID)),
		zap.Int("serial", c.SerialNumber),
	)
	return c, nil
}

// GetCustomer returns ErrCustomerNotFound for unknown ids.
func (s *Service) GetCustomer(ctx context.Context, id ledger.CustomerID) (ledger.Customer, error) {
	c, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return ledger.Customer{}, fmt.Errorf("load customer: %w", err)
	}
	if c == nil {
		return ledger.Customer{}, ledger.ErrCustomerNotFound
	}
	return *c, nil
}

// ListCustomers returns the selected area's customers.
func (s *Service) ListCustomers(ctx context.Context) ([]ledger.Customer, error) {
	areaID, err := s.currentArea(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.ListCustomers(ctx, areaID)
}

// DeleteCustomer removes the customer record. Their events stay in the
// ledger and keep counting toward the dashboard.
func (s *Service) DeleteCustomer(ctx context.Context, id ledger.CustomerID) error {
	if _, err := s.GetCustomer(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteCustomer(ctx, id); err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	s.log.Info("customer deleted", zap.String("customer_id", string(id)))
	return nil
}
