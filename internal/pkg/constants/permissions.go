package constants

const (
	ViewProperties   = "view_properties"
	ManageProperties = "manage_properties"
	DeleteProperty   = "delete_property"
	SellProperty     = "sell_property"
	CancelProperty   = "cancel_property"
	PlaceOffer       = "place_offer"
	DecideOffer      = "decide_offer"
	EditOffer        = "edit_offer"
	ManageCatalog    = "manage_catalog"
	ViewInvoices     = "view_invoices"
	ImportPortfolio  = "import_portfolio"
)

// PermissionRoles maps each permission to the roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewProperties:   {Portal, Agent, Manager, Admin},
	ManageProperties: {Agent, Manager, Admin},
	DeleteProperty:   {Manager, Admin},
	SellProperty:     {Agent, Manager, Admin},
	CancelProperty:   {Agent, Manager, Admin},
	PlaceOffer:       {Portal, Agent, Manager, Admin},
	DecideOffer:      {Agent, Manager, Admin},
	EditOffer:        {Agent, Manager, Admin},
	ManageCatalog:    {Manager, Admin},
	ViewInvoices:     {Manager, Admin},
	ImportPortfolio:  {Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
