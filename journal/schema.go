package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	dataset TEXT NOT NULL,
	symbol TEXT NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	config TEXT NOT NULL,
	initial_cap REAL NOT NULL,
	final_equity REAL NOT NULL,
	cum_pnl REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	sharpe REAL,
	num_trades INTEGER NOT NULL,
	bars INTEGER NOT NULL,
	entries INTEGER NOT NULL,
	exits INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	win_rate REAL NOT NULL,
	profit_factor REAL
);

CREATE TABLE IF NOT EXISTS trade_events (
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	bar INTEGER NOT NULL,
	time DATETIME NOT NULL,
	action TEXT NOT NULL,
	price REAL NOT NULL,
	qty INTEGER NOT NULL,
	pos_after INTEGER NOT NULL,
	reason TEXT NOT NULL,
	signal REAL,
	log_return REAL,
	cash_pnl REAL,
	cash_after REAL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS bars (
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	idx INTEGER NOT NULL,
	time DATETIME NOT NULL,
	date TEXT NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL,
	signal REAL,
	equity REAL NOT NULL,
	cum_pnl REAL NOT NULL,
	ret REAL NOT NULL,
	PRIMARY KEY (run_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created);
`
