package accounts

import "github.com/cuadra-dev/cuadra/internal/model"

// Well-known codes in the default chart.
const (
	CodeCash              = "1111"
	CodeBank              = "1112"
	CodeReceivables       = "1131"
	CodeInventory         = "1141"
	CodePayables          = "2111"
	CodeCapital           = "3111"
	CodeSales             = "4111"
	CodeInventorySurplus  = "4211"
	CodeCOGS              = "5111"
	CodeDirectPurchases   = "5211"
	CodeInventoryShortage = "5311"
)

// DefaultChart returns a compact chart of accounts following the class
// numbering used by Bolivian small businesses (1 activo … 5 egresos).
func DefaultChart() []model.Account {
	acct := func(code, name string, typ model.AccountType) model.Account {
		return model.Account{Code: code, Name: name, Type: typ, Active: true}
	}
	asset, liability, equity := model.AccountTypeAsset, model.AccountTypeLiability, model.AccountTypeEquity
	revenue, expense := model.AccountTypeRevenue, model.AccountTypeExpense

	return []model.Account{
		acct("1", "Activo", asset),
		acct("11", "Activo corriente", asset),
		acct("111", "Disponible", asset),
		acct(CodeCash, "Caja", asset),
		acct(CodeBank, "Bancos", asset),
		acct("113", "Exigible", asset),
		acct(CodeReceivables, "Cuentas por cobrar comerciales", asset),
		acct("114", "Realizable", asset),
		acct(CodeInventory, "Inventario de mercaderías", asset),
		acct("115", "Créditos fiscales", asset),
		acct("1151", "Crédito fiscal IVA", asset),

		acct("2", "Pasivo", liability),
		acct("21", "Pasivo corriente", liability),
		acct("211", "Cuentas por pagar", liability),
		acct(CodePayables, "Cuentas por pagar comerciales", liability),
		acct("212", "Obligaciones fiscales", liability),
		acct("2121", "Débito fiscal IVA", liability),
		acct("2122", "Impuesto a las transacciones por pagar", liability),

		acct("3", "Patrimonio", equity),
		acct("31", "Capital", equity),
		acct("311", "Capital pagado", equity),
		acct(CodeCapital, "Capital social", equity),
		acct("32", "Resultados", equity),
		acct("321", "Resultados acumulados", equity),
		acct("3211", "Utilidades acumuladas", equity),

		acct("4", "Ingresos", revenue),
		acct("41", "Ingresos operativos", revenue),
		acct("411", "Ventas", revenue),
		acct(CodeSales, "Ventas de mercaderías", revenue),
		acct("42", "Otros ingresos", revenue),
		acct("421", "Ajustes de inventario", revenue),
		acct(CodeInventorySurplus, "Sobrantes de inventario", revenue),

		acct("5", "Egresos", expense),
		acct("51", "Costos", expense),
		acct("511", "Costo de ventas", expense),
		acct(CodeCOGS, "Costo de mercaderías vendidas", expense),
		acct("52", "Gastos operativos", expense),
		acct("521", "Gastos directos", expense),
		acct(CodeDirectPurchases, "Compras y gastos directos", expense),
		acct("5212", "Sueldos y salarios", expense),
		acct("5213", "Alquileres", expense),
		acct("53", "Otros egresos", expense),
		acct("531", "Pérdidas de inventario", expense),
		acct(CodeInventoryShortage, "Faltantes y mermas de inventario", expense),
	}
}
