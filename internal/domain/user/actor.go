package user

// Actor es quien ejecuta un caso de uso, tal como lo identifica el access
// token. Los permisos finos se resuelven contra la cuenta persistida.
type Actor struct {
	ID   string
	Role Role
}
