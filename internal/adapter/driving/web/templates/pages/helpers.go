package pages

import vm "github.com/ericfisherdev/keyledger/internal/adapter/driving/web/viewmodel"

// invalid renders the aria-invalid value for a form field.
func invalid(f vm.FormViewModel, field string) string {
	if f.HasError(field) {
		return "true"
	}
	return "false"
}
