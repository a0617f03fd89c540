// Package model declares the database schema for the optional
// database-backed region and station datasets.
package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&RegionRecord{},
	&StationRecord{},
}

// RegionRecord is one administrative region row. Geometry is WKB in
// EPSG:3857; Names maps locale codes to display names.
type RegionRecord struct {
	gorm.Model
	Names    datatypes.JSON `json:"names" gorm:"type:jsonb;default:'{}'"`
	Geometry []byte         `json:"geometry"`
	// Position preserves dataset input order for overlap resolution.
	Position int `json:"position" gorm:"index"`
}

func (*RegionRecord) TableName() string {
	return "regions"
}

// StationRecord is one observation-station row.
type StationRecord struct {
	gorm.Model
	StationID int     `json:"stationId" gorm:"uniqueIndex"`
	Name      string  `json:"name" gorm:"size:127"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}

func (*StationRecord) TableName() string {
	return "stations"
}
