package v1

import (
	"net/http"

	"github.com/tinoosan/compta/internal/dictionary"
	"github.com/tinoosan/compta/internal/ledger"
)

// GET /v1/dictionary/classes?type=
func (s *Server) getClassesDictionary(w http.ResponseWriter, r *http.Request) {
	type classItem struct {
		dictionary.ClassDef
		NormalSide ledger.Side `json:"normal_side"`
	}
	out := struct {
		Items []classItem `json:"items"`
	}{Items: []classItem{}}
	filter := ledger.AccountType(r.URL.Query().Get("type"))
	if filter != "" && !filter.Valid() {
		badRequest(w, "invalid type")
		return
	}
	for _, c := range dictionary.Classes() {
		if filter != "" && c.Type != filter {
			continue
		}
		out.Items = append(out.Items, classItem{ClassDef: c, NormalSide: c.Type.NormalSide()})
	}
	toJSON(w, http.StatusOK, out)
}
