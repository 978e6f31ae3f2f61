package messages

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alimitedgroup/invdesk/common/money"
	"github.com/shopspring/decimal"
)

// Amount is a monetary value as it travels over the wire. The API is free to
// send it as a JSON string, a JSON number or null; whatever arrives is kept
// verbatim and only interpreted through money.ToSafeNumber.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*a = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("failed to decode amount: %w", err)
		}
		*a = Amount(s)
		return nil
	}
	*a = Amount(raw)
	return nil
}

// Scan lets pgx read NUMERIC and TEXT columns straight into an Amount.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = ""
	case string:
		*a = Amount(v)
	case []byte:
		*a = Amount(v)
	case int64:
		*a = Amount(decimal.NewFromInt(v).String())
	case float64:
		*a = Amount(decimal.NewFromFloat(v).String())
	default:
		return fmt.Errorf("cannot scan %T into Amount", src)
	}
	return nil
}

// Value writes the normalized decimal text, so garbage is stored as 0.
func (a Amount) Value() (driver.Value, error) {
	return a.Decimal().String(), nil
}

func (a Amount) Decimal() decimal.Decimal {
	return money.ToSafeNumber(string(a))
}

func AmountOf(d decimal.Decimal) Amount {
	return Amount(money.Format(d))
}

// LocationType is the kind of place a physical unit can sit at.
type LocationType string

const (
	LocationStore    LocationType = "store"
	LocationPop      LocationType = "pop"
	LocationCustomer LocationType = "customer"
)

func (t LocationType) Valid() bool {
	switch t {
	case LocationStore, LocationPop, LocationCustomer:
		return true
	}
	return false
}

// LocationKey identifies one location group, e.g. store 3 or pop 12.
type LocationKey struct {
	Type LocationType
	Id   string
}

// String renders the key as used in stream subjects: `<type>.<id>`.
func (k LocationKey) String() string {
	return fmt.Sprintf("%s.%s", k.Type, k.Id)
}

func ParseLocationKey(s string) (LocationKey, bool) {
	typ, id, found := strings.Cut(s, ".")
	if !found || id == "" || !LocationType(typ).Valid() {
		return LocationKey{}, false
	}
	return LocationKey{Type: LocationType(typ), Id: id}, true
}

// CatalogKind distinguishes the two catalogs that share one shape.
type CatalogKind string

const (
	KindEquipment CatalogKind = "equipment"
	KindTool      CatalogKind = "tool"
)

// EquipmentCatalogEntry is a purchasable/movable equipment (or tool) type.
type EquipmentCatalogEntry struct {
	Id            uint64 `json:"id" db:"id"`
	Name          string `json:"name" db:"name"`
	Model         string `json:"model" db:"model"`
	UnitCost      Amount `json:"unit_cost" db:"unit_cost"`
	EquipmentType string `json:"equipment_type,omitempty" db:"equipment_type"`
}

type CreateCatalogItem struct {
	Kind          CatalogKind `json:"kind"`
	Name          string      `json:"name"`
	Model         string      `json:"model"`
	UnitCost      Amount      `json:"unit_cost"`
	EquipmentType string      `json:"equipment_type,omitempty"`
}

// NamedRef is the {id, name} pair used for locations and personnel.
type NamedRef struct {
	Id   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type Locations struct {
	Stores    []NamedRef `json:"stores"`
	Pops      []NamedRef `json:"pops"`
	Customers []NamedRef `json:"customers"`
}

// Of returns the locations of the given type.
func (l Locations) Of(t LocationType) []NamedRef {
	switch t {
	case LocationStore:
		return l.Stores
	case LocationPop:
		return l.Pops
	case LocationCustomer:
		return l.Customers
	}
	return nil
}

type CreateLocation struct {
	LocationType LocationType `json:"location_type"`
	Name         string       `json:"name"`
}

type Supplier struct {
	Id      string `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	Contact string `json:"contact,omitempty" db:"contact"`
}

type CreateSupplier struct {
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
}

// PhysicalUnit is one serialized unit of an equipment type.
type PhysicalUnit struct {
	Equipment    EquipmentCatalogEntry `json:"equipment"`
	SerialNumber string                `json:"serial_number"`
}

// LocationGroup is the set of units present at one location.
type LocationGroup struct {
	LocationType LocationType   `json:"location_type"`
	LocationId   string         `json:"location_id"`
	Units        []PhysicalUnit `json:"units"`
}

func (g LocationGroup) Key() LocationKey {
	return LocationKey{Type: g.LocationType, Id: g.LocationId}
}

type LocationGroupedInventory []LocationGroup

// SelectionLine is one equipment type in a movement or procurement, with the
// serial numbers chosen for it.
type SelectionLine struct {
	Id            uint64   `json:"id"`
	SerialNumbers []string `json:"serial_numbers"`
	ModelNumber   string   `json:"model_number"`
	Name          string   `json:"name"`
	UnitCost      Amount   `json:"unit_cost"`
}

type MovementType string

const (
	MovementTransfer     MovementType = "transfer"
	MovementInstallation MovementType = "installation"
	MovementRetrieval    MovementType = "retrieval"
	MovementSwap         MovementType = "swap"
)

var MovementTypes = []MovementType{MovementTransfer, MovementInstallation, MovementRetrieval, MovementSwap}

type MovementDraft struct {
	FromLocationType LocationType    `json:"from_location_type"`
	FromLocationId   string          `json:"from_location_id"`
	ToLocationType   LocationType    `json:"to_location_type"`
	ToLocationId     string          `json:"to_location_id"`
	MovementDate     string          `json:"movement_date"`
	MovementType     MovementType    `json:"movement_type"`
	LogisticsCost    Amount          `json:"logistics_cost"`
	HandledBy        string          `json:"handled_by"`
	Remarks          string          `json:"remarks,omitempty"`
	Equipment        []SelectionLine `json:"equipment"`
	TotalCost        Amount          `json:"total_cost"`
}

type ProcurementDraft struct {
	SupplierId      string          `json:"supplier_id"`
	StoreId         string          `json:"store_id"`
	ProcurementDate string          `json:"procurement_date"`
	Reference       string          `json:"reference"`
	ReceivedBy      string          `json:"received_by"`
	LogisticsCost   Amount          `json:"logistics_cost"`
	Equipment       []SelectionLine `json:"equipment"`
	TotalCost       Amount          `json:"total_cost"`
}

// Response is the body of every successful write, and of every error as far
// as Message is concerned.
type Response struct {
	Message string `json:"message"`
	Id      string `json:"id,omitempty"`
}

// StockUpdate is the full list of units at one location; the location itself
// is carried by the subject, `stock_updates.<type>.<id>`.
type StockUpdate []PhysicalUnit
