// Package repository define los puertos de persistencia del dominio.
//
// Las implementaciones viven en internal/store/v2/adapters (pg, memory) y se
// obtienen siempre a través de un store.Scope, que las liga al handle de
// transacción (o al pool) elegido por el Unit of Work.
//
//	services ──► store.UnitOfWork.DoTx ──► Scope.Users() / Apartments() / Households()
//	                                              │
//	                               ┌──────────────┴──────────────┐
//	                               ▼                             ▼
//	                        adapters/pg                   adapters/memory
//
// Convenciones:
//   - Context siempre es el primer parámetro.
//   - Las lecturas retornan ErrNotFound si no hay fila.
//   - Las escrituras retornan *TechnicalError (ver errors.go); nunca errores
//     del driver.
package repository
