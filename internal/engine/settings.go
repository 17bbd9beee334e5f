package engine

// SettingsPatch holds the store settings UpdateSettings may change.
type SettingsPatch struct {
	StoreName        *string
	Currency         *string
	LowStockAlerts   *bool
	AutoAcceptOrders *bool
}

// UpdateSettings patches the store settings.
type UpdateSettings struct {
	Patch SettingsPatch
}

func (a UpdateSettings) apply(tx *txn) error {
	s := &tx.state.Settings
	if a.Patch.StoreName != nil {
		s.StoreName = *a.Patch.StoreName
	}
	if a.Patch.Currency != nil {
		s.Currency = *a.Patch.Currency
	}
	if a.Patch.LowStockAlerts != nil {
		s.LowStockAlerts = *a.Patch.LowStockAlerts
	}
	if a.Patch.AutoAcceptOrders != nil {
		s.AutoAcceptOrders = *a.Patch.AutoAcceptOrders
	}
	tx.touch()
	return nil
}

// UpdateSettings patches the store settings.
func (e *Engine) UpdateSettings(p SettingsPatch) {
	e.run(UpdateSettings{Patch: p})
}
