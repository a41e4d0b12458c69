package model

import "time"

// AssetType enumerates the physical asset kinds managed by agents.
type AssetType string

const (
    AssetPowerbank AssetType = "POWERBANK"
    AssetFreezer   AssetType = "FREEZER"
    AssetLamp      AssetType = "LAMP"
    AssetFridge    AssetType = "FRIDGE"
)

// Valid reports whether the asset type is one of the closed set.
func (t AssetType) Valid() bool {
    switch t {
    case AssetPowerbank, AssetFreezer, AssetLamp, AssetFridge:
        return true
    }
    return false
}

// Asset represents a row in the `assets` table.  ScanCode is a unique
// code printed on the physical asset; Rented mirrors whether an open
// rental currently references the asset.
type Asset struct {
    ID        uint64    `json:"id"`
    Name      string    `json:"name"`
    AssetType AssetType `json:"asset_type"`
    ScanCode  string    `json:"scan_code"`
    Rented    bool      `json:"rented"`
    AgentID   uint64    `json:"agent_id"`
    CreatedAt time.Time `json:"created_at"`
    UpdatedAt time.Time `json:"updated_at"`
}
