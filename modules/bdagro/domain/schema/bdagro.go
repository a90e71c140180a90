package schema

const (
	ClientIDColumn   = "client_id"
	ClientNameColumn = "client_name"
	GroupColumn      = "grupo"

	TCEstColumn         = "tc_est"
	TCRealColumn        = "tc_real"
	HarvestEstimateName = "tc_est_colheita"

	// NoGroup is the group label of an entity without a group mapping.
	NoGroup = "Sem Grupo"
)

var bdAgro = New(
	Column{Name: ClientIDColumn, Type: Integer},
	Column{Name: ClientNameColumn, Type: Text},
	Column{Name: "CHAVE", Type: Text},
	Column{Name: "SAFRA", Type: Integer},
	Column{Name: "OBJETIVO", Type: Text},
	Column{Name: "cliente", Type: Text},
	Column{Name: "TP_PROP", Type: Text},
	Column{Name: "FAZENDA", Type: Text},
	Column{Name: "SETOR", Type: Text},
	Column{Name: "SECAO", Type: Text},
	Column{Name: "BLOCO", Type: Text},
	Column{Name: "PIVO", Type: Text},
	Column{Name: "DESC_FAZ", Type: Text},
	Column{Name: "TALHAO", Type: Text},
	Column{Name: "VARIEDADE", Type: Text},
	Column{Name: "MATURACAO", Type: Text},
	Column{Name: "AMBIENTE", Type: Text},
	Column{Name: "ESTAGIO", Type: Text},
	Column{Name: "GRUPO_DASH", Type: Text},
	Column{Name: "GRUPO_NDVI", Type: Text},
	Column{Name: "NMRO_CORTE", Type: Decimal},
	Column{Name: "TAH", Type: Decimal},
	Column{Name: "TPH", Type: Decimal},
	Column{Name: "DESC_CANA", Type: Text},
	Column{Name: "AREA_BD", Type: Decimal},
	Column{Name: "A_EST_MOAGEM", Type: Decimal},
	Column{Name: "A_COLHIDA", Type: Decimal},
	Column{Name: "A_EST_MUDA", Type: Decimal},
	Column{Name: "A_MUDA", Type: Decimal},
	Column{Name: "TCH_EST", Type: Decimal},
	Column{Name: "TC_EST", Type: Decimal},
	Column{Name: "TCH_REST", Type: Decimal},
	Column{Name: "TC_REST", Type: Decimal},
	Column{Name: "TCH_REAL", Type: Decimal},
	Column{Name: "TC_REAL", Type: Decimal},
	Column{Name: "DT_CORTE", Type: Date},
	Column{Name: "DT_ULT_CORTE", Type: Date},
	Column{Name: "DT_PLANTIO", Type: Date},
	Column{Name: "IDADE_CORTE", Type: Decimal},
	Column{Name: "ATR", Type: Decimal},
	Column{Name: "ATR_EST", Type: Decimal},
	Column{Name: "IRRIGACAO", Type: Text},
	Column{Name: GroupColumn, Type: Text, Enriched: true},
)

// BDAgro is the canonical schema of the merged BD_AGRO dataset.
func BDAgro() Schema {
	return bdAgro
}

// HarvestEstimate is the derived estimated-harvest column.
var HarvestEstimate = Column{Name: HarvestEstimateName, Type: Decimal}
