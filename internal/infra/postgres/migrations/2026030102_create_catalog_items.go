package migrations

func init() {
	Migrations.MustRegister(
		exec("create_catalog_items.up.sql"),
		exec("create_catalog_items.down.sql"),
	)
}
