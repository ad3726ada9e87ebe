package models

// Area groups organizational units.
type Area struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Unit is an organizational entity reporting daily counts.
type Unit struct {
	ID     int64  `db:"id" json:"id" yaml:"id"`
	AreaID int64  `db:"area_id" json:"area_id" yaml:"-"`
	Name   string `db:"name" json:"name" yaml:"name"`
}
