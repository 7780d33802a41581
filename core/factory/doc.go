// Package factory builds pluggable components, such as metrics sinks, from
// configuration entries of the form {type, conf}. The conf map is whatever
// koanf produced, so Decode accepts string values for numeric and duration
// fields that arrive through environment overrides.
//
//	reg := factory.NewRegistry[metrics.MetricsSink]()
//	_ = reg.Register("influx", func(conf map[string]any) (metrics.MetricsSink, error) {
//		var c struct{ URL string `json:"url"` }
//		if err := factory.Decode(conf, &c); err != nil {
//			return nil, err
//		}
//		return newInflux(c.URL), nil
//	})
//	sink, err := reg.Create(factory.ModuleConfig{Type: "influx", Conf: conf})
package factory
