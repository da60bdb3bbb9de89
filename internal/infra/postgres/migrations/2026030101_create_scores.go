package migrations

func init() {
	Migrations.MustRegister(
		exec("create_scores.up.sql"),
		exec("create_scores.down.sql"),
	)
}
