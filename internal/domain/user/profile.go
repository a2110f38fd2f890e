package user

// Profile es el sub-perfil específico del rol. Las variantes son cerradas:
// SuperAdminProfile, AdminProfile y ResidentProfile.
type Profile interface {
	Role() Role
	clone() Profile
}

// SuperAdminProfile no agrega datos.
type SuperAdminProfile struct{}

func (SuperAdminProfile) Role() Role       { return RoleSuperAdmin }
func (p SuperAdminProfile) clone() Profile { return p }

// Apartment es el complejo administrado por un ADMIN. La clave natural es
// (Name, Address, OfficeNumber). AdminID vacío significa "sin administrar".
type Apartment struct {
	ID           string
	Name         string
	Address      string
	OfficeNumber string
	Description  string
	AdminID      string
}

// Managed indica si el complejo ya tiene un admin asignado.
func (a Apartment) Managed() bool { return a.AdminID != "" }

// ManagedBy indica si el complejo está asignado al admin dado.
func (a Apartment) ManagedBy(adminID string) bool {
	return a.AdminID != "" && a.AdminID == adminID
}

// NaturalKey identifica un complejo por sus datos públicos.
type NaturalKey struct {
	Name         string
	Address      string
	OfficeNumber string
}

func (a Apartment) Key() NaturalKey {
	return NaturalKey{Name: a.Name, Address: a.Address, OfficeNumber: a.OfficeNumber}
}

// AdminProfile contiene el complejo que administra la cuenta.
type AdminProfile struct {
	Apartment Apartment
}

func (AdminProfile) Role() Role       { return RoleAdmin }
func (p AdminProfile) clone() Profile { return p }

// ResidentProfile vincula la cuenta con un miembro de hogar pre-registrado
// (si lo hubo) y con la unidad declarada.
type ResidentProfile struct {
	ApartmentID       string
	HouseholdMemberID string
	Building          string
	Unit              string
	IsHouseholder     bool
}

func (ResidentProfile) Role() Role       { return RoleResident }
func (p ResidentProfile) clone() Profile { return p }
