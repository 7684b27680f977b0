package models

import "time"

// Module is one entry of the university module catalogue, keyed by its
// module code. Populated by the offline catalogue ETL; read-only to
// the live system.
type Module struct {
	Code     string   `bson:"_id" json:"code"`
	Name     string   `bson:"name" json:"name"`
	Programs []string `bson:"programs" json:"programs"` // major codes that include this module
	Year     int      `bson:"year,omitempty" json:"year,omitempty"`
	Core     bool     `bson:"core" json:"core"`
	Required bool     `bson:"required" json:"required"`
}

// Major is a degree programme, keyed by its major code.
type Major struct {
	Code    string   `bson:"_id" json:"code"`
	Name    string   `bson:"name" json:"name"`
	Faculty string   `bson:"faculty,omitempty" json:"faculty,omitempty"`
	Modules []string `bson:"modules" json:"modules"` // module codes; dangling refs nulled by the daily audit job
}

// CatalogueMeta records the provenance of the last catalogue load.
// Single document with _id "catalogue".
type CatalogueMeta struct {
	ID          string    `bson:"_id" json:"id"`
	Source      string    `bson:"source" json:"source"`
	BatchID     string    `bson:"batch_id" json:"batch_id"`
	ModuleCount int       `bson:"module_count" json:"module_count"`
	MajorCount  int       `bson:"major_count" json:"major_count"`
	LoadedAt    time.Time `bson:"loaded_at" json:"loaded_at"`
}
