package output

import "vision-crawler/internal/domain/entity"

type MetricsPort interface {
	ObserveNavigation(ok bool)
	ObserveClick(ok bool)
	ObserveAnnotation(pass *entity.AnnotationPass)
	ObserveExchange(ok bool, tokens int)
	ObserveParseFailure()
}
