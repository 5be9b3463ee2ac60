package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(certificatesIssuedTotal) }

var certificatesIssuedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "certificates_issued_total",
		Help: "Total number of course completion certificates issued.",
	},
)

func IncCertificateIssued() {
	certificatesIssuedTotal.Inc()
}
