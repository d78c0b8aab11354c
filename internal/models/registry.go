package models

// ModelRegistry lists the models handled by gorm auto-migration.
var ModelRegistry = []interface{}{
	&Signup{},
}
