package models

// AllModels lists every model, in dependency order, for AutoMigrate in tests
// and the sqlite development driver
func AllModels() []any {
	return []any{
		&FarmerModel{},
		&ParcelModel{},
		&InspectionModel{},
		&ProductiveSubjectModel{},
		&ParcelEstimationModel{},
		&FinancingModel{},
		&PaymentModel{},
		&OutboxEntryModel{},
	}
}
