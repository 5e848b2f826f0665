package population

// InitializerContext is passed to a simulant initializer when new rows are
// created, per spec §4.4 create_simulants.
type InitializerContext struct {
	Index          []int
	UserData       map[string]interface{}
	CreationTime   float64
	CreationWindow float64
}

// InitializerFunc populates newly-created rows of the table via an Update
// on the initializer's own View.
type InitializerFunc func(ctx InitializerContext)

// Manager owns the state table and vends Views onto it.
type Manager struct {
	table *Table
}

// NewManager constructs a PopulationManager with a fresh, empty table.
func NewManager() *Manager {
	return &Manager{table: NewTable()}
}

// Table exposes the underlying table for read-only diagnostic use (e.g. by
// ResultsManager, which needs direct multi-column reads every tick).
func (m *Manager) Table() *Table { return m.table }

// CreateSimulants allocates count new contiguous row indices, extends the
// table with dtype-zero values, and runs each initializer (already ordered
// by the resource manager) over the new index. user_data is forwarded to
// every initializer unchanged.
func (m *Manager) CreateSimulants(count int, userData map[string]interface{}, creationTime, creationWindow float64, initializers []InitializerFunc) []int {
	if count <= 0 {
		return nil
	}
	start, end := m.table.Extend(count)
	m.table.BeginCreation(start)
	defer m.table.EndCreation()

	index := make([]int, 0, count)
	for i := start; i < end; i++ {
		index = append(index, i)
	}
	ctx := InitializerContext{Index: index, UserData: userData, CreationTime: creationTime, CreationWindow: creationWindow}
	for _, init := range initializers {
		init(ctx)
	}
	return index
}

// AllIndex returns the full row index of the table (tracked and untracked).
func (m *Manager) AllIndex() []int {
	index := make([]int, m.table.Size())
	for i := range index {
		index[i] = i
	}
	return index
}
