package storage

// PoolStats is a driver-neutral snapshot of connection pool usage.
type PoolStats struct {
	Driver   string
	Total    int
	Idle     int
	Acquired int
}

// PoolStats reports pool usage for the pgx backend.
func (s *PostgresPoolStorage) PoolStats() PoolStats {
	st := s.pool.Stat()
	return PoolStats{
		Driver:   "postgrespool",
		Total:    int(st.TotalConns()),
		Idle:     int(st.IdleConns()),
		Acquired: int(st.AcquiredConns()),
	}
}

// PoolStats reports database/sql pool usage under GORM.
func (s *GormStorage) PoolStats() PoolStats {
	ps := PoolStats{Driver: s.db.Dialector.Name()}
	sqlDB, err := s.db.DB()
	if err != nil {
		return ps
	}
	st := sqlDB.Stats()
	ps.Total = st.OpenConnections
	ps.Idle = st.Idle
	ps.Acquired = st.InUse
	return ps
}

// PoolStatser is implemented by backends with a connection pool.
type PoolStatser interface {
	PoolStats() PoolStats
}
