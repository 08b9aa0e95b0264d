package diagmock

//go:generate -command mockgen mockgen -package=diagmock -self_package=github.com/quay/sbomdiff/internal/diag/diagmock
//go:generate mockgen -destination=./mock_sink.go github.com/quay/sbomdiff/internal/diag Sink
